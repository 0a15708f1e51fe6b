// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pxd-boot (re)starts all the processes of the pixel DAQ chain.
//
// Usage: pxd-boot [OPTIONS] ["CMD1 ARGS..." ["CMD2 ARGS..." ...]]
//
// Without arguments, pxd-boot starts the run-control and one pxd-srv
// reconstruction process.
//
// Each process logs into <dir>/<name>.log, where name is the TDAQ
// identifier given with -id (or the command name). When a process fails,
// the others are killed.
package main // import "github.com/go-lpc/pxd/cmd/pxd-boot"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

var (
	defaults = []string{
		"tdaq-runctl -lvl=INFO",
		"pxd-srv -lvl=INFO -id=pxd-srv -geo=/etc/pxd/geometry.json",
	}
	dir = os.Getenv("PXDLOGDIR")

	doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
	doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")

	stop = make(chan os.Signal, 1)
)

func main() {
	flag.Parse()

	log.SetPrefix("pxd-boot: ")
	log.SetFlags(0)

	args := flag.Args()
	if len(args) == 0 {
		args = defaults
	}

	procs, err := processes(args)
	if err != nil {
		log.Fatalf("could not create processes: %+v", err)
	}

	err = run(*doMon, *doFreq, procs, dir, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

// process is one process of the DAQ chain.
type process struct {
	name string // TDAQ identifier, used to name the log files
	cmd  *exec.Cmd
}

func newProcess(arg string) (process, error) {
	toks := strings.Fields(arg)
	if len(toks) == 0 {
		return process{}, fmt.Errorf("invalid empty command")
	}

	name := filepath.Base(toks[0])
	for i := 1; i < len(toks); i++ {
		tok := strings.TrimPrefix(toks[i], "-")
		tok = strings.TrimPrefix(tok, "-")
		switch {
		case strings.HasPrefix(tok, "id="):
			name = strings.TrimPrefix(tok, "id=")
		case tok == "id" && i+1 < len(toks):
			name = toks[i+1]
		}
	}
	if name == "" {
		return process{}, fmt.Errorf("invalid empty process id in %q", arg)
	}

	return process{
		name: name,
		cmd:  exec.Command(toks[0], toks[1:]...),
	}, nil
}

func processes(args []string) ([]process, error) {
	var (
		procs = make([]process, 0, len(args))
		names = make(map[string]struct{}, len(args))
	)
	for _, arg := range args {
		p, err := newProcess(arg)
		if err != nil {
			return nil, err
		}
		if _, dup := names[p.name]; dup {
			return nil, fmt.Errorf("duplicate process %q", p.name)
		}
		names[p.name] = struct{}{}
		procs = append(procs, p)
	}
	return procs, nil
}

func run(doMon bool, freq time.Duration, procs []process, dir string, stop chan os.Signal) error {
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	killed := make(map[string]struct{})
	for _, p := range procs {
		exe := filepath.Base(p.cmd.Path)
		if _, dup := killed[exe]; dup {
			continue
		}
		killed[exe] = struct{}{}
		err := exec.Command("killall", exe).Run()
		if err != nil {
			log.Printf("could not kill %q: %+v", exe, err)
		}
	}

	if dir == "" {
		dir = "/var/log/pxd"
	}

	var (
		grp, ctx = errgroup.WithContext(context.Background())
		kill     = make(chan int)
	)
	for i := range procs {
		p := procs[i]
		grp.Go(func() error {
			return start(ctx, p, dir, kill, doMon, freq)
		})
	}

	go func() {
		select {
		case <-stop:
			close(kill)
		case <-ctx.Done():
		}
	}()

	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot DAQ: %w", err)
	}
	return nil
}

func start(ctx context.Context, p process, dir string, kill chan int, doMon bool, freq time.Duration) error {
	out, err := os.Create(filepath.Join(dir, p.name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", p.name, err)
	}
	defer out.Close()

	p.cmd.Stdout = out
	p.cmd.Stderr = out

	log.Printf("starting %q...", p.name)
	err = p.cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", p.name, err)
	}

	if doMon {
		mon, err := pmon.Monitor(p.cmd.Process.Pid)
		if err != nil {
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", p.name, p.cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, p.name+"-pmon.log"))
		if err != nil {
			return fmt.Errorf("could not create pmon log file for %q: %w", p.name, err)
		}
		defer f.Close()
		mon.W = f
		mon.Freq = freq

		go func() {
			err := mon.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", p.name, err)
			}
		}()

		defer func() {
			err := mon.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", p.name, err)
			}
		}()
	}

	errch := make(chan error, 1)
	go func() {
		errch <- p.cmd.Wait()
	}()

	select {
	case <-kill:
		return p.stop(errch)
	case <-ctx.Done():
		log.Printf("stopping %q: DAQ chain failed", p.name)
		return p.stop(errch)
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", p.name, err)
		}
	}

	return nil
}

func (p process) stop(errch chan error) error {
	err := p.cmd.Process.Kill()
	if err != nil {
		return fmt.Errorf("could not kill %q: %w", p.name, err)
	}
	<-errch
	return nil
}
