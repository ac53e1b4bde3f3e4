package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/Shihab-md/unis-server-sub000/internal/server"
	"github.com/Shihab-md/unis-server-sub000/pkg/db"
	"github.com/Shihab-md/unis-server-sub000/pkg/log"
)

func main() {
	app := fx.New(
		log.Module,
		db.Module,
		fx.Provide(RegisterSnowflake),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
