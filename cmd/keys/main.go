// Command keys generates operator secrets: the 32-byte token encryption key
// and bcrypt hashes for admin API keys.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		flagAdminKey = flag.String("hash-admin-key", "", "print the bcrypt hash of the given admin API key and exit")
	)
	flag.Parse()

	if *flagAdminKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*flagAdminKey), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("bcrypt: %v", err)
		}
		fmt.Printf("ADMIN_API_KEY_HASH=%s\n", hash)
		return
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("rand: %v", err)
	}
	fmt.Printf("ENCRYPTION_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
}
