// Command op операторская утилита: проверка доступа к Freedcamp, отчет,
// разовый вызов инструмента и просмотр журнала.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
