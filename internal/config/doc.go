// Package config provides configuration parsing for tendril.
//
// The configuration is stored in tendril.yaml next to the document being
// rendered. This package handles loading, saving, and validating
// configuration. The CLI layers viper on top, so every key can also be
// given as a TENDRIL_ environment variable or a flag.
//
// # Configuration File Structure
//
//	base_url: https://api.example.com
//	root: ./public
//	fetch:
//	  timeout: 10s
//	stores:
//	  local:
//	    kind: redis        # memory, file or redis
//	    path: ./local.json # file kind
//	    redis:
//	      addr: localhost:6379
//	      db: 0
//	      prefix: "tendril:local:"
//	log:
//	  level: info
//	  file: ./tendril.log
//	  max_size: 100
//	  max_backups: 3
//	  max_age: 28
//	  compress: true
//	metrics:
//	  namespace: tendril
//	serve:
//	  addr: localhost:3000
//
// # Usage
//
//	cfg, err := config.LoadFile("tendril.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Addr:", cfg.Serve.Addr)
package config
