// Package config provides configuration loading for postboard.
//
// Configuration is read from postboard.json or postboard.yaml in the working
// directory, then overridden by POSTBOARD_* environment variables. A missing
// file is not an error; defaults from New apply.
//
// # Configuration File Structure
//
//	{
//	  "serve": {"addr": ":8080"},
//	  "log": {"level": "info", "format": "text"},
//	  "store": {"initialSync": true},
//	  "metrics": {"namespace": "postboard"},
//	  "seed": [
//	    {"id": 1, "text": "hello"}
//	  ]
//	}
//
// # Environment
//
//	POSTBOARD_ADDR              serve.addr
//	POSTBOARD_LOG_LEVEL         log.level
//	POSTBOARD_LOG_FORMAT        log.format
//	POSTBOARD_INITIAL_SYNC      store.initialSync
//	POSTBOARD_METRICS_NAMESPACE metrics.namespace
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.Log.NewLogger(os.Stderr)
package config
