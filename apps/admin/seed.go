package main

import (
	"context"
	"fmt"

	"github.com/hallpass-app/hallpass/core/report"
)

// seed creates the fixed demo district and schools. Safe to rerun.
func (cli *commandLine) seed() error {
	res, err := report.NewService(cli.rptRepo).Seed(context.Background())
	if err != nil {
		return err
	}
	for _, name := range res.Created {
		fmt.Printf("created %s\n", name)
	}
	for _, name := range res.Existing {
		fmt.Printf("exists  %s\n", name)
	}
	return nil
}
