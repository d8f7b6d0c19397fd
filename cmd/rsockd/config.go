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

import "github.com/urfave/cli"

// flags is the daemon's command-line surface.
var flags = []cli.Flag{
	cli.StringFlag{
		Name:  "listen,l",
		Value: ":29900",
		Usage: `remote endpoint listen address, eg: "IP:29900" for a single port, "IP:minport-maxport" for a range`,
	},
	cli.StringFlag{
		Name:   "key",
		Value:  "",
		Usage:  "pre-shared secret between client and remote endpoint",
		EnvVar: "RSOCKD_KEY",
	},
	cli.StringFlag{
		Name:  "envfile",
		Value: "",
		Usage: "load the pre-shared key from a KEY=VALUE secrets file instead of -key/argv",
	},
	cli.IntFlag{
		Name:  "target-timeout",
		Value: 10,
		Usage: "seconds to wait for the target dial to complete before failing the handshake",
	},
	cli.IntFlag{
		Name:  "closewait",
		Value: 30,
		Usage: "seconds allowed for a torn-down connection's peer to flush its staged bytes before it is closed",
	},
	cli.StringFlag{
		Name:  "metrics-listen",
		Value: "",
		Usage: "address to serve Prometheus metrics on, eg 127.0.0.1:9100; empty disables metrics",
	},
	cli.BoolFlag{
		Name:  "pprof",
		Usage: "start profiling server on :6060",
	},
	cli.StringFlag{
		Name:  "log",
		Value: "",
		Usage: "specify a log file to output, default goes to stderr",
	},
	cli.BoolFlag{
		Name:  "quiet",
		Usage: "to suppress the 'tunnel open/close' messages",
	},
	cli.StringFlag{
		Name:  "c",
		Value: "",
		Usage: "config from json file, which will override the command from shell",
	},
}
