package web

import (
	"embed"
)

// staticFiles holds the single-page UI served at "/".
//
//go:embed static/*
var staticFiles embed.FS
