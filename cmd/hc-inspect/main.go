package main

import (
	"flag"
	"fmt"
	"os"

	"hangarcore/pkg/logger"
	"hangarcore/pkg/store"
)

func main() {
	var (
		path   string
		prefix string
		key    string
	)
	flag.StringVar(&path, "path", "", "pebble store path to open")
	flag.StringVar(&prefix, "prefix", "doc:", "key prefix to list")
	flag.StringVar(&key, "key", "", "dump the raw value of a single key")
	flag.Parse()
	if path == "" {
		fmt.Fprintln(os.Stderr, "--path required")
		os.Exit(2)
	}
	logger.Init()

	p, err := store.OpenPebble(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer p.Close()

	if key != "" {
		raw, err := p.GetRaw(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get %s: %v\n", key, err)
			os.Exit(1)
		}
		os.Stdout.Write(raw)
		fmt.Println()
		return
	}

	keys, err := p.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list %s: %v\n", prefix, err)
		os.Exit(1)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}
