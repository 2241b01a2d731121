package shellgate

// DefaultDenyPolicy is the policy applied when no policy file is configured.
// Patterns are Go regular expressions matched against the raw command string.
const DefaultDenyPolicy = `version: "1.0"
policy:
  denyPatterns:
    # privilege escalation
    - '^\s*sudo\b'
    - '^\s*doas\b'
    # recursive delete aimed at root-like paths
    - 'rm\s+-[a-zA-Z]*[rR][a-zA-Z]*\s+(--no-preserve-root\s+)?(/|/\*|~|\$HOME)(\s|$)'
    - 'rm\s+-[a-zA-Z]*f[a-zA-Z]*\s+(/|/\*)(\s|$)'
    # fork bomb
    - ':\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;'
    # filesystem and raw device destruction
    - '\bmkfs(\.[a-z0-9]+)?\b'
    - '\bdd\b[^|]*\bof=/dev/'
    - '>\s*/dev/sd[a-z]'
    # host power state
    - '^\s*(shutdown|reboot|halt|poweroff)\b'
    # world-writable root
    - '\bchmod\s+(-[a-zA-Z]+\s+)*777\s+/(\s|$)'
`
