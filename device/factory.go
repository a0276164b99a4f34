package device

// Factory turns a user supplied device spec into a Filter for RequestDevice.
type Factory interface {
	FromSpec(spec DeviceSpec) (Filter, error)
}

type FactoryDocs interface {
	Help() string
}
