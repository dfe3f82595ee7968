// Package config provides configuration parsing for fbind.
//
// The configuration is stored in fbind.json next to the templates it applies to.
// Every field is optional; missing values fall back to the defaults returned by New.
//
// # Configuration File Structure
//
//	{
//	  "directives": {
//	    "prefix": "f-",
//	    "eventMarker": "@",
//	    "bindMarker": ":",
//	    "stripAllAttributes": false
//	  },
//	  "log": {
//	    "level": "info"
//	  },
//	  "serve": {
//	    "host": "localhost",
//	    "port": 4000,
//	    "watch": true,
//	    "metrics": true
//	  },
//	  "s3": {
//	    "region": "eu-west-1",
//	    "endpoint": "http://localhost:9000",
//	    "usePathStyle": true
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Directives.Prefix)
package config
