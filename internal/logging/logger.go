package logging

import (
	"log"
	"os"
)

var (
	S3       = log.New(os.Stdout, "[s3] ", log.LstdFlags)
	Store    = log.New(os.Stdout, "[store] ", log.LstdFlags)
	Internal = log.New(os.Stdout, "[internal] ", log.LstdFlags)
	HTTP     = log.New(os.Stdout, "[http] ", log.LstdFlags)
)
