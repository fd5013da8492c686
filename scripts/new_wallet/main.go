package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"tradecontrol/pkg/solana"
)

// Generates a trading wallet and stores it as an encrypted keystore entry.
// Usage: go run ./scripts/new_wallet -dir configs/keystore -password <secret>
//
//	go run ./scripts/new_wallet -list
func main() {
	dir := flag.String("dir", solana.DefaultKeystoreDir, "keystore directory")
	password := flag.String("password", os.Getenv("WALLET_PASSWORD"), "keystore password")
	list := flag.Bool("list", false, "list stored wallet addresses and exit")
	flag.Parse()

	ks := solana.NewKeystore(*dir)
	if *list {
		addresses, err := ks.Addresses()
		if err != nil {
			log.Fatalf("Failed to list keystore: %v", err)
		}
		for _, address := range addresses {
			fmt.Println(address)
		}
		return
	}

	if *password == "" {
		log.Fatal("A keystore password is required (-password or WALLET_PASSWORD)")
	}

	address, err := ks.Create(*password)
	if err != nil {
		log.Fatalf("Failed to create wallet: %v", err)
	}
	if _, err := ks.Signer(address, *password); err != nil {
		log.Fatalf("Keystore entry does not round-trip: %v", err)
	}
	fmt.Printf("WALLET_ADDRESS=%s\n", address)
}
