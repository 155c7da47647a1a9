package root

import (
	"github.com/sidelinehq/trophy-cabinet/apps/cli/cmd/auth"
	"github.com/sidelinehq/trophy-cabinet/apps/cli/cmd/bootstrap"
	"github.com/sidelinehq/trophy-cabinet/apps/cli/cmd/invite"
	"github.com/sidelinehq/trophy-cabinet/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenant.Command())
	Root().AddCommand(invite.Command())
}
