package main

import "oppreport/internal/app"

func main() {
	app.Main()
}
