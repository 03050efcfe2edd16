package cozebridge

// Version information for cozebridge.
// These values can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/cozebridge.GitCommit=abc1234"
const (
	// Name is the application name.
	Name = "cozebridge"

	// Description is a short description of the application.
	Description = "Translation bridge for Coze bots"

	// Version is the semantic version of the application.
	Version = "0.1.0"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/cozebridge"
)

// Build information, set via ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// FullVersion returns the version string with the short commit hash when known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns the User-Agent sent with every Coze request.
func UserAgent() string {
	return Name + "/" + Version
}
