// Package assets bundles the default skill strings into the binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed i18n
var files embed.FS

// I18n returns the string bundles laid out as <lang>/<skillID>.yaml.
func I18n() fs.FS {
	sub, err := fs.Sub(files, "i18n")
	if err != nil {
		panic(err)
	}
	return sub
}
