// Command predictkey encrypts a signing key into the file format read by
// chain.encrypted_key_path, or prints the address of an existing file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alanyoungcy/predictplugin/internal/crypto"
)

func main() {
	out := flag.String("out", "key.json", "where to write the encrypted key")
	inspect := flag.String("inspect", "", "print the address of this key file; verifies it when the password is set")
	keyEnv := flag.String("key-env", "EVM_PRIVATE_KEY", "environment variable holding the private key")
	passEnv := flag.String("password-env", "PREDICTD_CHAIN_KEY_PASSWORD", "environment variable holding the password")
	flag.Parse()

	password := os.Getenv(*passEnv)

	if *inspect != "" {
		blob, err := os.ReadFile(*inspect)
		if err != nil {
			fail("%v", err)
		}
		addr, err := crypto.KeyFileAddress(blob)
		if err != nil {
			fail("%v", err)
		}
		if password != "" {
			if _, err := crypto.DecryptKey(blob, password); err != nil {
				fail("%v", err)
			}
		}
		fmt.Println(addr.Hex())
		return
	}

	if password == "" {
		fail("%s is not set", *passEnv)
	}

	key := os.Getenv(*keyEnv)
	if key == "" {
		fail("%s is not set", *keyEnv)
	}
	addr, err := crypto.AddressFromKey(key)
	if err != nil {
		fail("%v", err)
	}
	blob, err := crypto.EncryptKey(key, password)
	if err != nil {
		fail("%v", err)
	}
	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		fail("write %s: %v", *out, err)
	}
	fmt.Printf("wrote %s for %s\n", *out, addr.Hex())
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "predictkey: "+format+"\n", args...)
	os.Exit(1)
}
