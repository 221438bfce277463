package grammar

import (
	"log"
)

// checkAndFatal aborts on an error that can only come from a programmer
// mistake (a malformed regexp literal), not from untrusted grammar text --
// Symbol.IsValid is the only caller.
func checkAndFatal(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
