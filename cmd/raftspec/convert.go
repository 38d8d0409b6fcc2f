package main

import (
	"fmt"
	"strconv"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/unit"
)

// Run executes the convert command.
func (c *ConvertCmd) Run(deps *Dependencies) error {
	u, ok := raftspec.ParseUnit(c.Unit)
	if !ok {
		err := raftspec.Errorf(raftspec.ECONVERSION, "unknown unit %q", c.Unit)
		fmt.Fprintf(deps.Stderr, "error: %s\n", err.Message)
		return err
	}

	q := raftspec.Quantity{Value: c.Value, Unit: u}
	all, err := unit.ToAll(q)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
		return err
	}

	decimals := deps.decimals()
	for _, target := range unit.Units(u.Dimension()) {
		r := all[target].Round(decimals)
		fmt.Fprintf(deps.Stdout, "%s %s\n", strconv.FormatFloat(r.Value, 'f', -1, 64), target)
	}
	return nil
}
