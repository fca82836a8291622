package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[PutObjectsMessage] = (*PutObjectsCommand)(nil)
	_ gocmd.Commander[PutObjectMessage]  = (*PutObjectCommand)(nil)
)
