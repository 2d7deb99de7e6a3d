// Command server runs the exchange: server [port] [host], with the socket
// and order-book knobs overridable via flags.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"pi-exchange/config"
	"pi-exchange/duplex"
	"pi-exchange/exchange"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = "3000"
)

func main() {
	defaults := config.Defaults()
	bufferSize := flag.Uint("socket-buffer-size", uint(defaults.SocketBufferSize),
		"SOCKET_BUFFER_SIZE: bytes per duplex ring")
	flushThreshold := flag.Uint("socket-flush-threshold", uint(defaults.SocketFlushThreshold),
		"SOCKET_FLUSH_THRESHOLD: bytes the writer batches up to before flushing (must be <= socket-buffer-size)")
	orderBookInitSize := flag.Int("order-book-init-size", defaults.OrderBookInitSize,
		"ORDER_BOOK_INIT_SIZE: pre-sized id-index capacity per order book")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: server [flags] [port] [host]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *flushThreshold > *bufferSize {
		fmt.Fprintln(os.Stderr, "server: socket-flush-threshold must be <= socket-buffer-size")
		os.Exit(1)
	}

	host := defaultHost
	port := defaultPort
	switch flag.NArg() {
	case 0:
	case 1:
		port = flag.Arg(0)
	case 2:
		port = flag.Arg(0)
		host = flag.Arg(1)
	default:
		flag.Usage()
		os.Exit(1)
	}

	address := net.JoinHostPort(host, port)
	opts := duplex.Options{
		BufferSize:     uint32(*bufferSize),
		FlushThreshold: uint32(*flushThreshold),
	}
	cfg := config.Values{
		SocketBufferSize:     uint32(*bufferSize),
		SocketFlushThreshold: uint32(*flushThreshold),
		OrderBookInitSize:    *orderBookInitSize,
	}
	srv, err := exchange.NewServer(address, opts, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(2)
	}
	defer srv.Close()

	fmt.Printf("server: listening on %s\n", srv.Addr())
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(2)
	}
}
