package server

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/spf13/afero"
)

//go:embed web
var embedded embed.FS

// UI returns the asset filesystem: dir on disk when set, otherwise the
// bundled page.
func UI(dir string) http.FileSystem {
	if dir != "" {
		return afero.NewHttpFs(afero.NewBasePathFs(afero.NewOsFs(), dir)).Dir("/")
	}

	sub, err := fs.Sub(embedded, "web")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}
