package gstview

import "github.com/thesyncim/gstview/internal/logging"

var log = logging.DefaultLogger.WithTag("gstview")
