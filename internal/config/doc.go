// Package config loads the toolarr configuration.
//
// Configuration is read from config.yaml in a single directory. The default
// directory is ~/.config/toolarr; commands accept --config-path to use
// another one. Values are layered: built-in defaults, then the file, then
// environment variables.
//
// # Environment
//
//   - TOOLARR_BASE_URL, TOOLARR_HOST, TOOLARR_PORT: server.baseUrl, host, port
//   - TOOL_API_KEY: server.apiKey, the legacy pre-shared bearer key
//   - SONARR_INSTANCE_<n>_NAME, _URL, _API_KEY: Sonarr instances, n from 1
//   - RADARR_INSTANCE_<n>_NAME, _URL, _API_KEY: Radarr instances, n from 1
//
// # Example
//
//	server:
//	  port: 8000
//	  baseUrl: https://toolarr.example.com
//	oauth:
//	  tokenTTL: 1h
//	  registration:
//	    enabled: true
//	    maxPerWindow: 10
//	    window: 1h
//	  clients:
//	    - id: automation
//	      secret: a-long-random-secret
//	      grantTypes: [client_credentials]
//	      scopes: [mcp:read]
//	sonarr:
//	  - name: default
//	    url: http://sonarr:8989
//	    apiKey: ...
//
// Validate reports every problem at once as a *ConfigurationErrorCollection.
package config
