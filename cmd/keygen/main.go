// Package main generates a vault master key: 32 random bytes, base64url
// encoded without padding, ready for ROSTER_MASTER_KEY or a mounted key
// file.
//
//	export ROSTER_MASTER_KEY=$(keygen)
//	keygen -out /etc/roster/master.key
package main

import (
	"flag"
	"fmt"
	"os"

	"roster/pkg/secrets"
)

func main() {
	out := flag.String("out", "", "write the key to this file (mode 0600) instead of stdout")
	flag.Parse()

	key, err := secrets.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generating key: %v\n", err)
		os.Exit(1)
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(key+"\n"), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "writing key file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("master key written to %s\n", *out)
		return
	}

	fmt.Println(key)
}
