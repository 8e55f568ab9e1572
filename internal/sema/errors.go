package sema

import "errors"

var (
	errEmptyImportPath = errors.New("empty import path")
	errModuleNotFound  = errors.New("no matching file in any search path")
)
