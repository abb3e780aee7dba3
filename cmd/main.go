/*
 *  main.go
 *  cmd
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package main

import (
	"log"

	logging "github.com/op/go-logging"
	"github.com/ustarbio/ustar"
)

// main is the entrypoint for the entire program, routes to commands
func main() {
	logging.SetBackend(ustar.BackendFormatter)
	if err := ustar.Execute(); err != nil {
		log.Fatal(err)
	}
}
