package main

import (
  "context"
  "errors"
  "net"
  "net/http"
  "os"
  "time"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/promhttp"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
  "golang.org/x/sync/errgroup"

  "github.com/robertof/go-gearvr-controller/ble"
  "github.com/robertof/go-gearvr-controller/broadcast"
  "github.com/robertof/go-gearvr-controller/device"
  "github.com/robertof/go-gearvr-controller/device/gearvr"
  "github.com/robertof/go-gearvr-controller/metrics"
  "github.com/robertof/go-gearvr-controller/session"
  "github.com/robertof/go-gearvr-controller/supervisor"
  "github.com/robertof/go-gearvr-controller/utils"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
      zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if cfg.Debug || os.Getenv("DEBUG") != "" {
      zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
      zerolog.SetGlobalLevel(zerolog.InfoLevel)
  }

  if cfg.DiscoverDevices {
    doDeviceDiscovery(cfg)
    return
  }

  transport := initTransport(cfg)
  defer transport.Stop()

  manager := session.NewManager(transport, session.Options{
    Filter: cfg.Controller,
    WatchdogTimeout: cfg.WatchdogTimeout,
  })

  registry := prometheus.NewRegistry()
  ble.RegisterMetrics(registry)
  metrics.RegisterCollector(manager.Snapshot, registry)

  events := metrics.NewEventCounter(registry)
  broadcaster := broadcast.New(manager.Snapshot)

  manager.AddListener(logEvent)
  manager.AddListener(events.Listen)
  manager.AddListener(broadcaster.Listen)

  mux := http.NewServeMux()
  mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
  mux.Handle("/ws", broadcaster)

  server := &http.Server{
    Addr: cfg.BindAddress,
    Handler: mux,
  }

  ctx := ble.WrapContextWithSigHandler(context.WithCancel(context.Background()))
  ctx, cancel := context.WithCancel(ctx)
  defer cancel()

  g, ctx := errgroup.WithContext(ctx)

  g.Go(func() error {
    log.Info().
      Str("ListenAddress", cfg.BindAddress).
      Msg("Starting metrics and event stream server")

    if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      return err
    }

    return nil
  })

  g.Go(func() error {
    <-ctx.Done()

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5 * time.Second)
    defer shutdownCancel()

    return server.Shutdown(shutdownCtx)
  })

  g.Go(func() error {
    // the server has nothing left to report once the session is gone for good.
    defer cancel()

    sup := supervisor.New(manager, supervisor.Options{
      MaxRetries: cfg.MaxRetries,
      BackoffFactor: cfg.Backoff,
      Reconnect: cfg.Reconnect,
    })

    err := sup.Run(ctx)

    if errors.Is(err, context.Canceled) {
      return nil
    }

    return err
  })

  if err := g.Wait(); err != nil {
    log.Fatal().Err(err).Msg("Controller session failed")
  }

  log.Info().Msg("Shutting down")
}

func initTransport(cfg config) *ble.Transport {
  var bleFlags ble.Flags
  var allowList []net.HardwareAddr

  if cfg.ActiveScan {
    bleFlags |= ble.FlagScanTypeActive
  }

  if cfg.Controller.Addr != "" {
    addr, err := net.ParseMAC(cfg.Controller.Addr)

    if err != nil {
      log.Fatal().Err(err).Msg("Invalid controller address")
    }

    bleFlags |= ble.FlagEnableDeviceAllowList
    allowList = append(allowList, addr)
  }

  log.Info().
    Str("BindAddr", cfg.BindAddress).
    Stringer("Controller", cfg.Controller).
    Array("AllowList", utils.ToZeroLogArray(allowList)).
    Int("BluetoothDeviceID", cfg.BluetoothDeviceId).
    Stringer("BluetoothFlags", bleFlags).
    Msg("Starting with the specified configuration")

  return ble.NewTransport(ble.TransportOptions{
    DeviceID: cfg.BluetoothDeviceId,
    ConnParams: cfg.BluetoothConnParams,
    Flags: bleFlags,
    AllowList: allowList,
    ScanTimeout: cfg.ScanTimeout,
    Service: gearvr.ServiceUUID,
    NotifyCharacteristic: gearvr.NotifyCharacteristicUUID,
    WriteCharacteristic: gearvr.WriteCharacteristicUUID,
  })
}

func logEvent(e device.Event) {
  switch e.Kind {
  case device.EventConnect, device.EventDisconnect:
    log.Info().Stringer("Event", e).Msg("Controller event")
  default:
    log.Debug().Stringer("Event", e).Msg("Controller event")
  }
}
