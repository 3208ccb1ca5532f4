/*
Package cli provides shared command-line utilities for sentryfwctl and
sentryfwd: response output formatting, exit-code mapping from the
daemon's stable error vocabulary, and signal handling for graceful
shutdown.

Output formatting:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, resp); err != nil {
		return err
	}

Exit codes:

Every sentryfwctl failure exits with a stable, scriptable code derived
from the daemon's error message (see ExitCodeFor). Success is always 0.

Signal handling:

	ctx := cli.SetupSignalHandler()
	// ctx is cancelled on SIGINT/SIGTERM
*/
package cli
