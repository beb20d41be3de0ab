package main

import (
	"log"
	"meetingbot/internal/pkg/app"
)

func main() {
	err := app.New()
	if err != nil {
		log.Fatal(err)
	}
}
