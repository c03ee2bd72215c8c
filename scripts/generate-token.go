package main

import (
	"fmt"
	"os"

	"github.com/voicebridge/telephony-relay-go/internal/util"
)

// Prints a random 64-char hex secret, suitable for MANAGEMENT_TOKEN,
// WEBHOOK_SECRET, or ENCRYPTION_KEY.
func main() {
	token, err := util.GenerateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
