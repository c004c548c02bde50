// Command dbdconf reads a GVDB file and renders a dump, listing, or
// single value from it. It accepts either positional ordering of its
// path and command arguments:
//
//	dbdconf <GVDB_PATH> <command> <arg>
//	dbdconf <command> <GVDB_PATH> <arg>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dconf/gvdb"
)

// Exit codes.
const (
	exitOK        = 0
	exitNoCommand = -1
	exitFileError = -2
	exitPathError = -3
)

var commandArgKind = map[string]string{
	"read": "key path",
	"list": "directory path",
	"dump": "directory path",
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("dbdconf: ")
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	if len(argv) == 1 && argv[0] == "help" {
		printHelp()
		return exitOK
	}

	if len(argv) != 3 {
		log.Print("expected: dbdconf <GVDB_PATH> <command> <arg> | dbdconf <command> <GVDB_PATH> <arg>")
		return exitNoCommand
	}

	command, path, arg, ok := lexArgs(argv)
	if !ok {
		log.Print("no command identified (expected help, read, list, or dump)")
		return exitNoCommand
	}
	if command == "help" {
		printHelp()
		return exitOK
	}

	fi, err := os.Stat(path)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return exitFileError
	}
	if !fi.Mode().IsRegular() {
		log.Printf("%s: not a regular file", path)
		return exitFileError
	}

	tree, err := gvdb.ParseFile(path, false)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return exitFileError
	}

	var out string
	switch command {
	case "read":
		out, err = gvdb.Read(tree, arg)
	case "list":
		out, err = gvdb.List(tree, arg)
	case "dump":
		out, err = gvdb.Dump(tree, arg)
	}
	if err != nil {
		log.Printf("%s: %v", path, err)
		return exitPathError
	}

	fmt.Println(out)
	return exitOK
}

// lexArgs resolves the dual positional ordering the usage allows:
// either of the first two tokens may be the command, with the other
// being the GVDB path and the third always the command's argument.
func lexArgs(argv []string) (command, path, arg string, ok bool) {
	a, b, c := argv[0], argv[1], argv[2]
	switch {
	case isCommand(a):
		return a, b, c, true
	case isCommand(b):
		return b, a, c, true
	default:
		return "", "", "", false
	}
}

func isCommand(s string) bool {
	if s == "help" {
		return true
	}
	_, ok := commandArgKind[s]
	return ok
}

func printHelp() {
	fmt.Println(`dbdconf - inspect a GVDB file

Usage:
  dbdconf <GVDB_PATH> <command> <arg>
  dbdconf <command> <GVDB_PATH> <arg>

Commands:
  help              show this message
  read  <key path>  print the value at a key path, e.g. /greeting
  list  <dir path>  list the immediate children of a directory path, e.g. /
  dump  <dir path>  print an INI-like dump of a directory path and its descendants

Exit codes:
  0   success
  -1  no command identified
  -2  the GVDB file is missing, not a regular file, or fails to parse
  -3  path resolution failed`)
}
