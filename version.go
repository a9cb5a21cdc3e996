package main

// Build-time variables set via ldflags during releases
var (
	version = "latest"  // version is the application version shown by --version
	commit  = "unknown" // commit is the git commit hash
	date    = "unknown" // date is the build date
)

const versionTemplate = `{{.Name}} {{.Version}}
LiquiDNS zonefile importer
`

func versionString() string {
	return version + " (commit " + commit + ", built " + date + ")"
}
