// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pub invokes the solver against a manifest and optional lockfile
// found in the current directory, per §1's "CLI/front-end: invokes the
// core with a mode (resolve, upgrade, downgrade) and an optional set of
// packages to unlock."
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dam0vm3nt/pub"
	"github.com/dam0vm3nt/pub/cache"
	"github.com/dam0vm3nt/pub/sources"
)

const (
	manifestName = "manifest.json"
	lockName     = "lock.json"
	packagesName = "packages.json"
)

type command struct {
	name  string
	short string
	fn    func(args []string) error
}

var commands []*command

func init() {
	commands = []*command{
		{name: "resolve", short: "compute a fresh lockfile honoring the prior lock", fn: runSolve(pub.ModeResolve)},
		{name: "upgrade", short: "ignore the lockfile for the given packages (default: all)", fn: runSolve(pub.ModeUpgrade)},
		{name: "downgrade", short: "prefer the oldest compatible version of each package", fn: runSolve(pub.ModeDowngrade)},
		{name: "get", short: "resolve, honoring the lockfile wherever legal", fn: runSolve(pub.ModeGet)},
		{name: "help", short: "[command] show documentation for pub or the named command", fn: help},
	}
}

func main() {
	flag.Parse()

	do := flag.Arg(0)
	var args []string
	if do == "" {
		do = "help"
	} else {
		args = flag.Args()[1:]
	}

	for _, cmd := range commands {
		if cmd.name != do {
			continue
		}
		if err := cmd.fn(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(int(pub.ExitCodeFor(err)))
		}
		os.Exit(int(pub.ExitSuccess))
	}

	fmt.Fprintf(os.Stderr, "unknown command: %q\n", do)
	help(nil)
	os.Exit(int(pub.ExitUsage))
}

func help(args []string) error {
	fmt.Printf("usage: pub <command> [packages to unlock]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Printf("  %-10s %s\n", cmd.name, cmd.short)
	}
	return nil
}

// runSolve returns a command function for the given mode. args, if
// present, names the packages to unlock; an empty list means "all" for
// upgrade, and "none" for every other mode.
func runSolve(mode pub.SolveMode) func(args []string) error {
	return func(args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		reg := pub.NewSourceRegistry()
		cacheDir := os.Getenv("PUB_CACHE_DIR")
		if cacheDir == "" {
			cacheDir = filepath.Join(wd, ".pub-cache")
		}

		hosted := sources.NewHosted(registryURL(), os.Getenv("PUB_REGISTRY_TOKEN"))
		git := sources.NewGit(filepath.Join(cacheDir, "git"))
		path := sources.NewPath()
		sdk := sources.NewSDK()

		reg.Register(hosted)
		reg.Register(git)
		reg.Register(path)
		reg.Register(sdk)
		hosted.SetRegistry(reg)
		git.SetRegistry(reg)
		path.SetRegistry(reg)

		manifestData, err := os.ReadFile(filepath.Join(wd, manifestName))
		if err != nil {
			return fmt.Errorf("no %s found in %s", manifestName, wd)
		}
		root, err := pub.ParseManifest(manifestData, reg)
		if err != nil {
			return err
		}

		var lock *pub.Lockfile
		if lockData, err := os.ReadFile(filepath.Join(wd, lockName)); err == nil {
			lock, err = pub.LoadLockfile(lockData, reg)
			if err != nil {
				return err
			}
		}

		unlock := make(map[pub.Name]bool, len(args))
		for _, a := range args {
			unlock[pub.Name(a)] = true
		}

		persist, err := cache.Open(cacheDir, time.Time{})
		if err != nil {
			return err
		}
		defer persist.Close()

		logger := logrus.New()
		if os.Getenv("PUB_DEBUG") != "" {
			logger.SetLevel(logrus.DebugLevel)
		}

		params := pub.SolveParameters{
			RootName: pub.Name(filepath.Base(wd)),
			Root:     root,
			Registry: reg,
			Lock:     lock,
			Unlock:   unlock,
			Mode:     mode,
			Cache:    pub.NewVersionCache(reg, persist),
		}

		solver := pub.NewSolver(params, logger)
		result, err := solver.Solve(context.Background())
		if err != nil {
			if uerr, ok := err.(*pub.UnsatisfiableError); ok {
				fmt.Fprintln(os.Stderr, pub.Report(uerr))
			}
			return err
		}

		if err := pub.WriteLockfile(filepath.Join(wd, lockName), result.Lockfile); err != nil {
			return err
		}

		pkgs, err := result.Lockfile.PackagesFile()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(wd, packagesName), pkgs, 0o644); err != nil {
			return err
		}

		fmt.Printf("resolved %d packages in %d attempts (run %s)\n", result.Lockfile.Len(), result.Attempts, result.RunID)
		return nil
	}
}

func registryURL() string {
	if u := os.Getenv("PUB_REGISTRY_URL"); u != "" {
		return u
	}
	return "https://pub.example.com"
}
