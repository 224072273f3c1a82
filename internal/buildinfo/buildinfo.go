// Package buildinfo holds the project identity printed by the binaries.
package buildinfo

const (
	ProjectName = "stockrush"
	GithubURL   = "https://github.com/bloops-games/stockrush"
)

const Graffiti = `
     _             _                   _
 ___| |_ ___   ___| | ___ __ _   _ ___| |__
/ __| __/ _ \ / __| |/ / '__| | | / __| '_ \
\__ \ || (_) | (__|   <| |  | |_| \__ \ | | |
|___/\__\___/ \___|_|\_\_|   \__,_|___/_| |_|
`

// GreetingCLI expects the project name, version and repository url.
const GreetingCLI = `
%s %s
Source code: %s

`

// Version falls back to "dev" when the binary was built without a version.
func Version(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
