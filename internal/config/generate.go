package config

// DefaultSettingsTOML is a complete, commented sample redisvc.toml.
const DefaultSettingsTOML = `# redisvc settings
# Every key is optional. redis.conf stays the source of truth for
# bind, port, requirepass, rename-command, loglevel and logfile.

# child_binary = "redis-server"     # server executable, relative to the redisvc binary directory
# fallback_wait = "30s"             # wait for exit after a failed graceful shutdown before killing
# kill_wait = "5s"                  # wait for a forced termination to take effect
# connect_timeout = "5s"            # dial and command timeout for the shutdown handshake
# pid_file = ""                     # write the wrapper PID here while running
# log_max_bytes = "0"               # rotate the service log past this size ("50MB"); 0 disables
# log_backups = 0                   # rotated files to keep
# watch_config = false              # log a notice when redis.conf changes on disk

[status]
# listen = "127.0.0.1:9121"         # HTTP status and metrics listener; empty disables
# username = ""                     # HTTP Basic Auth username
# password = ""                     # bcrypt-hashed password
`
