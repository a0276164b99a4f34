package main

import (
  "flag"
  "fmt"
  "io"
  "os"
  "time"

  "gopkg.in/yaml.v3"

  "github.com/robertof/go-gearvr-controller/ble"
  "github.com/robertof/go-gearvr-controller/device"
  "github.com/robertof/go-gearvr-controller/device/gearvr"
  "github.com/robertof/go-gearvr-controller/session"
  "github.com/robertof/go-gearvr-controller/supervisor"
)

type config struct {
  Debug, Trace bool
  ConfigFile string
  BindAddress string
  DiscoverDevices bool
  DiscoveryDuration time.Duration
  BluetoothDeviceId int
  BluetoothConnParams ble.ConnParams
  ActiveScan bool
  ScanTimeout time.Duration
  WatchdogTimeout time.Duration
  Reconnect bool
  MaxRetries int
  Backoff time.Duration
  Controller device.Filter
}

type boundFilter struct {
  device.Factory
  filter *device.Filter
  spec string
}

var controllerFactory = &gearvr.Factory{}

func (b *boundFilter) String() string {
  return b.spec
}

func (b *boundFilter) Set(v string) error {
  filter, err := b.FromSpec(device.NewDeviceSpec(v))
  if err != nil {
    return fmt.Errorf("failed to create controller filter: %w", err)
  }

  b.spec = v
  *b.filter = filter

  return nil
}

func newFlagSet(cfg *config) *flag.FlagSet {
  fs := flag.NewFlagSet("gearvr-controller", flag.ContinueOnError)

  cfg.BluetoothConnParams = ble.ConnParamsDefault
  cfg.Controller, _ = controllerFactory.FromSpec(device.DeviceSpec{})

  fs.StringVar(&cfg.ConfigFile, "config", "", "YAML file providing defaults for any of these flags, keyed by flag name")
  fs.StringVar(&cfg.BindAddress, "bind", "localhost:9103", "Where the metrics and event stream server will bind to")
  fs.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", 0, "Bluetooth (HCI) device ID")
  fs.Var(&cfg.BluetoothConnParams, "bluetooth-connection-params", "Bluetooth connection parameters (one of 'default' or 'balanced')")
  fs.BoolVar(&cfg.ActiveScan, "active-scan", true, "Use active scans, needed to see the controller's advertised name")
  fs.BoolVar(&cfg.DiscoverDevices, "discover", false, "Discover available BLE devices and quit")
  fs.DurationVar(&cfg.DiscoveryDuration, "discover-duration", 5 * time.Second, "How long discovery mode scans for")
  fs.DurationVar(&cfg.ScanTimeout, "scan-timeout", ble.DefaultScanTimeout, "How long to look for the controller on each connect attempt")
  fs.DurationVar(&cfg.WatchdogTimeout, "watchdog-timeout", session.DefaultWatchdogTimeout,
    "Disconnect when no telemetry is received for this long")
  fs.BoolVar(&cfg.Reconnect, "reconnect", false, "Reconnect after the controller disconnects instead of quitting")
  fs.IntVar(&cfg.MaxRetries, "max-retries", supervisor.DefaultMaxRetries, "Max number of retries per connect (negative retries forever)")
  fs.DurationVar(&cfg.Backoff, "backoff", supervisor.DefaultBackoffFactor, "Exponential backoff factor for retries")
  fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  fs.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  help := "Controller spec in the form of `key=value,key=value`."

  if docs, ok := device.Factory(controllerFactory).(device.FactoryDocs); ok {
    help += "\n" + docs.Help()
  }

  fs.Var(&boundFilter{Factory: controllerFactory, filter: &cfg.Controller}, "controller", help)

  return fs
}

// applyConfigFile sets every flag listed in the file which was not already
// given on the command line.
func applyConfigFile(fs *flag.FlagSet, r io.Reader) error {
  var values map[string]any

  if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
    return fmt.Errorf("failed to parse config file: %w", err)
  }

  explicit := make(map[string]bool)
  fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

  for name, value := range values {
    if fs.Lookup(name) == nil || name == "config" {
      return fmt.Errorf("unknown config file setting %q", name)
    }

    if explicit[name] {
      continue
    }

    if err := fs.Set(name, fmt.Sprint(value)); err != nil {
      return fmt.Errorf("invalid value for %q in config file: %w", name, err)
    }
  }

  return nil
}

func parseArgs(args []string) (cfg config, err error) {
  fs := newFlagSet(&cfg)

  if err = fs.Parse(args); err != nil {
    return cfg, err
  }

  if cfg.ConfigFile != "" {
    f, err := os.Open(cfg.ConfigFile)
    if err != nil {
      return cfg, fmt.Errorf("failed to open config file: %w", err)
    }
    defer f.Close()

    if err := applyConfigFile(fs, f); err != nil {
      return cfg, fmt.Errorf("%v: %w", cfg.ConfigFile, err)
    }
  }

  return cfg, nil
}

func ParseArgs() config {
  cfg, err := parseArgs(os.Args[1:])

  if err == flag.ErrHelp {
    os.Exit(0)
  }

  if err != nil {
    fmt.Fprintln(os.Stderr, "Error:", err)
    os.Exit(2)
  }

  return cfg
}
