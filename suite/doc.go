// Package suite holds the JS-API conformance cases and the runner that
// executes them.
//
// Cases are grouped the way the upstream JS-API tests are laid out
// (module/exports, functions/module, table/type, ...) and are registered at
// init time. Each case gets a fresh jsapi.Runtime and reports pass, fail or
// skip:
//
//	cfg, err := suite.LoadConfig("conformance.yaml")
//	runner, err := suite.NewRunner(cfg)
//	results, err := runner.Run(ctx)
//	suite.WriteText(os.Stdout, results, false)
//
// A configuration file selects cases with path.Match patterns and tunes the
// runtime:
//
//	runtime:
//	  engine: interpreter
//	  strict_rewrap: false
//	include: ["functions/*"]
//	exclude: ["functions/module/Function Table set"]
//	fail_fast: true
package suite
