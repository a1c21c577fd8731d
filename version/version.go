package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = VMSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// VMSemVer is the semantic version of the runtime.
	VMSemVer = "0.1.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// BytecodeProtocol versions the module format and the instruction set.
	BytecodeProtocol Protocol = 1

	// StateProtocol versions the access path layout and the encoding of
	// stored values.
	StateProtocol Protocol = 1
)
