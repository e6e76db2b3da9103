package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/symprefix/storage/cachegrpc"
	"xdao.co/symprefix/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("xdao-symcached", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7677", "listen address")
	root := fs.String("root", "", "cache root directory")
	_ = fs.Parse(os.Args[1:])

	if *root == "" {
		fmt.Fprintln(os.Stderr, "-root is required")
		os.Exit(2)
	}
	cache, err := localfs.New(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	cachegrpc.RegisterCacheServer(s, &cachegrpc.Server{CAS: cache})

	fmt.Fprintf(os.Stderr, "xdao-symcached listening on %s (root=%s)\n", lis.Addr().String(), *root)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
