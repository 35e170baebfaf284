package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(destroy, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(erase, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(initCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(list, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(runCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(verify, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(vnext, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
