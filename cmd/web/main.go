package main

import "pds_backend/internal/app"

func main() {
	app.Run()
}
