package main

import (
  "context"
  "errors"

  "github.com/rs/zerolog/log"
  "golang.org/x/exp/maps"

  "github.com/robertof/go-gearvr-controller/ble"
)

func doDeviceDiscovery(cfg config) {
  log.Info().
    Dur("Duration", cfg.DiscoveryDuration).
    Msg("Starting in device discovery mode - collecting devices...")

  handle, err := ble.Init(cfg.BluetoothDeviceId, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  defer handle.Stop()

  ctx := ble.WrapContextWithSigHandler(
    context.WithTimeout(
      context.Background(),
      cfg.DiscoveryDuration,
    ),
  )

  type deviceInfo struct {
    name string
    connectable bool
    controller bool
    services map[string]bool
  }

  devices := make(map[string]*deviceInfo)

  err = handle.ScanAll(ctx, func(a ble.Advertisement) {
    addr := a.Addr().String()
    info, ok := devices[addr]

    if !ok {
      info = &deviceInfo{services: make(map[string]bool)}
      devices[addr] = info
    }

    // merge with what previous advertisements (or scan responses) told us
    if info.name == "" {
      info.name = a.LocalName()
    }

    info.connectable = a.Connectable()
    info.controller = info.controller || ble.MatchesFilter(cfg.Controller, a)

    for _, uuid := range a.Services() {
      info.services[uuid.String()] = true
    }

    log.Debug().
      Str("Addr", addr).
      Str("Name", a.LocalName()).
      Bool("Connectable", a.Connectable()).
      Strs("Services", maps.Keys(info.services)).
      Hex("ManufacturerData", a.ManufacturerData()).
      Msg("Received device advertisement")
  })

  if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
    log.Fatal().Err(err).Msg("Failed to initiate scan")
  }

  log.Info().Int("Found", len(devices)).Msg("Finished device discovery")

  for addr, data := range devices {
    log.Info().
      Str("Addr", addr).
      Str("Name", data.name).
      Bool("Connectable", data.connectable).
      Bool("Controller", data.controller).
      Strs("Services", maps.Keys(data.services)).
      Msg("Found device")
  }
}
