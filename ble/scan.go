package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ble/ble"
	"github.com/robertof/go-gearvr-controller/device"
	"github.com/rs/zerolog/log"
)

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
	return ble.WithSigHandler(ctx, cancel)
}

// Perform an active or passive scan and return every advertisement found.
func (h *Handle) ScanAll(ctx context.Context, onDevice func(Advertisement)) error {
	err := h.dev.Scan(ctx, true, onDevice)

	if err != nil {
		return fmt.Errorf("failed to initiate scan: %w", err)
	}

	return nil
}

// Scan until an advertisement accepted by match shows up, or the context
// expires.
func (h *Handle) ScanFirst(
	parentCtx context.Context,
	match func(Advertisement) bool,
) (found Advertisement, err error) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	results := make(chan Advertisement, 1)

	callback := func(a Advertisement) {
		// the BLE lib could send an advertisement even after `Scan()` returns. do not waste
		// time matching data if we're done.
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Trace().
			Str("Addr", a.Addr().String()).
			Str("LocalName", a.LocalName()).
			Msg("ble: received advertisement")

		if !match(a) {
			return
		}

		select {
		case results <- a:
			cancel()
		default:
		}
	}

	err = h.dev.Scan(ctx, false, callback)

	select {
	case found = <-results:
		return found, nil
	default:
	}

	// swallow context.Canceled errors which are caused by our explicit cancellations.
	if err == nil || errors.Is(err, context.Canceled) {
		err = parentCtx.Err()
	}

	return nil, err
}

// MatchesFilter reports whether an advertisement satisfies f. An address, when
// given, takes precedence over the name prefix since passive scans might not
// carry the local name.
func MatchesFilter(f device.Filter, a Advertisement) bool {
	if f.Addr != "" {
		return strings.EqualFold(a.Addr().String(), f.Addr)
	}

	if f.NamePrefix != "" && strings.HasPrefix(a.LocalName(), f.NamePrefix) {
		return true
	}

	if f.Service != "" {
		svc, err := ble.Parse(f.Service)

		if err != nil {
			return false
		}

		for _, uuid := range a.Services() {
			if uuid.Equal(svc) {
				return true
			}
		}
	}

	return false
}
