package polcount

import "time"

const DefaultRpcTimeout = 3 * time.Second

const DefaultAddr = "127.0.0.1:7710"

const snapshotFileName = "snapshot.pb"

// optional leading marker of query tokens
const queryMarker = '?'

const maxTokenSize = 64 << 20

// headers are untrusted, grow past this on demand
const maxPrealloc = 1 << 16
