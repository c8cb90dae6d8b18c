// Package translate formats user visible messages in the user's locale.
package translate

import (
	"log"
	"os"
	"strings"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

// LANG_ENV overrides the detected locales, as a comma separated list.
const LANG_ENV = "VCPU_LANG"

var printer *message.Printer

func init() {
	var locales []string
	if env := os.Getenv(LANG_ENV); len(env) != 0 {
		locales = strings.Split(env, ",")
	} else {
		var err error
		locales, err = locale.GetLocales()
		if err != nil {
			log.Printf("vcpu: locale: %v", err)
		}
	}

	Set(locales...)
}

// Set selects the best matching locale for messages. With no locales,
// en-US is used.
func Set(locales ...string) {
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From formats an en-US Sprintf() style key in the user's locale.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
