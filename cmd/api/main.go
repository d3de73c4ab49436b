package main

import (
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
