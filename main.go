package main

import (
	"multifeed/cmd"
)

func main() {
	cmd.Execute()
}
