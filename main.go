package main

import "github.com/airsportlive/airsports-calculator-go/cmd"

func main() {
	cmd.Execute()
}
