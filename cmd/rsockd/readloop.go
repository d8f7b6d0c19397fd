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
	"io"
	"log"
	"net"
	"sync"

	"github.com/xtaci/rsockd/internal/conn"
	"github.com/xtaci/rsockd/internal/shard"
)

// acceptLoop accepts inbound client connections on lis until it fails,
// registering each one with the shard and starting its dispatch loop.
func acceptLoop(lis net.Listener, s *shard.Shard, quiet bool, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		c, err := lis.Accept()
		if err != nil {
			log.Println("accept:", err)
			return
		}
		rec := s.RegisterInbound(c)
		go runDispatchLoop(s, rec, quiet)
	}
}

// readChunk is how much the loop tries to read off the socket per Read
// call before handing the accumulated buffer back to Dispatch.
const readChunk = 4096

// runDispatchLoop owns the only Read calls against rec.Conn, feeding
// whatever bytes arrive into Shard.Dispatch until Dispatch reports a
// fatal error (-1) or the socket itself closes. Dispatch never touches
// the socket's read side; this loop is the thin I/O driver around it.
func runDispatchLoop(s *shard.Shard, rec *conn.Record, quiet bool) {
	buf := make([]byte, 0, readChunk)
	tmp := make([]byte, readChunk)

	logln := func(v ...any) {
		if !quiet {
			log.Println(v...)
		}
	}

	// maxBuffered bounds the bytes held while waiting for a complete
	// frame: a 4-byte header plus 64 KiB of ciphertext.
	const maxBuffered = 4 + 64<<10

	for {
		n, err := rec.Conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			if err != io.EOF {
				logln("read:", err, "handle:", rec.Handle)
			}
			s.Teardown(rec)
			logln("tunnel closed:", rec.Host(), "handle:", rec.Handle)
			return
		}

		for len(buf) > 0 {
			consumed, dispatchErr := s.Dispatch(rec, buf)
			if consumed < 0 {
				if dispatchErr != nil {
					logln("dispatch:", dispatchErr, "handle:", rec.Handle)
				}
				logln("tunnel closed:", rec.Host(), "handle:", rec.Handle)
				return
			}
			if consumed == 0 {
				break
			}
			buf = buf[consumed:]
		}

		if len(buf) > maxBuffered {
			logln("read: incomplete frame exceeds", maxBuffered, "bytes, handle:", rec.Handle)
			s.Teardown(rec)
			logln("tunnel closed:", rec.Host(), "handle:", rec.Handle)
			return
		}
	}
}
