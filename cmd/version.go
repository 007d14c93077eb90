package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cognify version and build details",
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		info, _ := debug.ReadBuildInfo()
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(versionLines(version, info, verbose), "\n"))
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Include Go version and VCS revision")
}

// versionLines prefers the -ldflags version, then the module version.
func versionLines(ldflags string, info *debug.BuildInfo, verbose bool) []string {
	v := ldflags
	if v == "" && info != nil {
		v = info.Main.Version
	}
	if v == "" {
		v = "(devel)"
	}
	lines := []string{"cognify " + v}
	if !verbose || info == nil {
		return lines
	}
	lines = append(lines, "go: "+info.GoVersion)
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	if rev := settings["vcs.revision"]; rev != "" {
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		lines = append(lines, "revision: "+rev)
	}
	if t := settings["vcs.time"]; t != "" {
		lines = append(lines, "built from commit at: "+t)
	}
	return lines
}
