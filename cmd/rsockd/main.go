// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/xtaci/rsockd/internal/cipher"
	"github.com/xtaci/rsockd/internal/config"
	"github.com/xtaci/rsockd/internal/conn"
	"github.com/xtaci/rsockd/internal/connector"
	"github.com/xtaci/rsockd/internal/metricsx"
	"github.com/xtaci/rsockd/internal/shard"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

// weakKeyThreshold flags pre-shared keys short enough that PBKDF2 can't
// meaningfully compensate for a low-entropy input. An operator warning,
// not an enforced limit.
const weakKeyThreshold = 16

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	app := cli.NewApp()
	app.Name = "rsockd"
	app.Usage = "remote endpoint for an encrypted tunneling proxy"
	app.Version = VERSION
	app.Flags = flags
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.Config{
		Listen:               c.String("listen"),
		Key:                  c.String("key"),
		TargetTimeoutSeconds: c.Int("target-timeout"),
		CloseWait:            c.Int("closewait"),
		MetricsListen:        c.String("metrics-listen"),
		Pprof:                c.Bool("pprof"),
		Log:                  c.String("log"),
		Quiet:                c.Bool("quiet"),
	}

	explicitKey := c.IsSet("key")

	if c.String("c") != "" {
		keyBefore := cfg.Key
		if err := config.ParseJSONFile(&cfg, c.String("c")); err != nil {
			return err
		}
		if cfg.Key != keyBefore {
			explicitKey = true
		}
	}

	// The secrets file is the lowest-precedence key source: an explicit
	// -key flag or a key in the JSON config wins over it.
	if envfile := c.String("envfile"); envfile != "" {
		env, err := config.LoadEnvFile(envfile)
		if err != nil {
			return err
		}
		if !explicitKey {
			config.ApplyEnvKey(&cfg.Key, env, "RSOCKD_KEY")
		}
	}

	cfg.ResolveTargetTimeout()

	if cfg.Log != "" {
		f, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	}

	log.Println("version:", VERSION)
	log.Println("listen:", cfg.Listen)
	log.Println("target-timeout:", cfg.TargetTimeout)
	log.Println("closewait:", cfg.CloseWait)
	log.Println("metrics-listen:", cfg.MetricsListen)
	log.Println("pprof:", cfg.Pprof)
	log.Println("quiet:", cfg.Quiet)

	if len(cfg.Key) < weakKeyThreshold {
		color.Red("warning: 'key' has size of %d bytes, at least %d recommended for adequate PBKDF2 entropy", len(cfg.Key), weakKeyThreshold)
	}
	color.Yellow("warning: this endpoint derives a single process-wide AES-CFB IV at startup and reuses it for every tunnel; this is an inherited protocol weakness, not a bug")

	box, err := cipher.NewBox(cfg.Key)
	if err != nil {
		return err
	}

	rec := metricsx.New()
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				log.Println("metrics server:", err)
			}
		}()
	}

	if cfg.Pprof {
		go http.ListenAndServe(":6060", nil)
	}

	lr, err := config.ParseListenRange(cfg.Listen)
	if err != nil {
		return err
	}

	connr := connector.New(cfg.TargetTimeout)

	var (
		wg        sync.WaitGroup
		shards    []*shard.Shard
		listeners []net.Listener
	)
	for port := lr.MinPort; port <= lr.MaxPort; port++ {
		addr := fmt.Sprintf("%s:%d", lr.Host, port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		log.Println("listening on:", addr)

		s := shard.New(box, connr, rec)
		s.SetCloseWait(time.Duration(cfg.CloseWait) * time.Second)
		s.OnOutbound(func(r *conn.Record) {
			if !cfg.Quiet {
				log.Println("tunnel opened:", r.Host(), "handle:", r.Handle)
			}
			go runDispatchLoop(s, r, cfg.Quiet)
		})
		shards = append(shards, s)
		listeners = append(listeners, lis)

		wg.Add(1)
		go acceptLoop(lis, s, cfg.Quiet, &wg)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Println("signal:", sig)

	for _, lis := range listeners {
		lis.Close()
	}
	wg.Wait()
	for _, s := range shards {
		s.CloseAll()
	}
	return nil
}
