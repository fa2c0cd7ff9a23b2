// Package properties provides a typed, phase-gated property registry used to
// bootstrap a process before it starts serving or connecting.
//
// A Registry moves through three phases that only go forward:
//
//	PhaseRegister  descriptors are declared with Register
//	PhaseConfig    stores are pushed with Push (last pushed wins)
//	PhaseUse       values are read with Get and written with Set
//
// Entering PhaseUse resolves every registered property once. If any property
// has neither a store value nor a default, Advance returns a
// *ValidationError, the registry stays in PhaseConfig, and the process
// should stop.
//
// Quick Start:
//
//	maxConns := properties.Int("client.max-connections").
//	    WithDefault(10).
//	    WithConstraint(properties.Range(1, 1000))
//	host := properties.String("client.host")
//
//	reg, err := properties.NewBuilder().
//	    Register(maxConns, host).
//	    WithStores(
//	        properties.NewFileStore("client.toml", properties.Optional()),
//	        properties.NewEnvStore("APP_"),
//	        properties.NewArgsStore(os.Args[1:]),
//	    ).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	n, _ := properties.Get(reg, maxConns)
//
// Stores shipped with the package: MemoryStore, FileStore (TOML, JSON, YAML,
// Java properties), ResourceStore (any fs.FS), EnvStore, DotEnvStore and
// ArgsStore. A FileStore can be watched for changes; see WatchOptions.
//
// Resolution searches the stack from the most recently pushed store down and
// stops at the first store holding a value; lower stores are never merged in.
// Writes always go to the top store, which must implement WritableStore.
//
// Thread Safety:
// All registry operations, including store I/O, run under a single mutex.
// Reset is meant for sequential tests only.
package properties
