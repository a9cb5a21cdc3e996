package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lanrat/zonepush/zone"
)

// errUserCancelled is returned when the operator rejects the parsed zone
var errUserCancelled = errors.New("canceled by user")

// confirm shows the parsed zones on out and asks on in whether to continue.
// An empty answer means yes. End of input cancels.
func confirm(in io.Reader, out io.Writer, zones zone.Zones) error {
	if _, err := fmt.Fprint(out, "\n\nThe zone was parsed as follows:\n\n"); err != nil {
		return err
	}
	if err := zones.Print(out); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, "Is this correct (Y/n)? "); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errUserCancelled
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "", "Y", "y":
			return nil
		case "N", "n":
			return errUserCancelled
		}
	}
}
