package main

import "github.com/nekruzvatanshoev/carzone/pkg/cmd"

func main() {
	cmd.Execute()
}
