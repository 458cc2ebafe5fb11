package protocol

// This package implements the wire-level data model and the pure codecs for
// the two RCON dialects that rconctl speaks. Nothing in here touches a
// socket; the client package owns all I/O and feeds bytes and lines through
// the functions defined here.
//
// === Source RCON
//
// The Valve/Source dialect is binary. Every frame looks like
//
//   ```
//   length:int32le | id:int32le | kind:int32le | payload | 0x00 0x00
//   ```
//
// where `length` counts everything after itself. The payload is plain text
// and must not contain NUL. Frame kinds:
//
// - `KindAuth` (3)          - client login request, payload is the password
// - `KindAuthResponse` (2)  - server's answer to an auth request. An id of
//                             -1 signals a rejected password.
// - `KindExecCommand` (2)   - client command request
// - `KindResponseValue` (0) - server command output. Large outputs span
//                             several of these.
//
// KindAuthResponse and KindExecCommand share the value 2; they are told
// apart purely by direction and context.
//
// === Hyrcon
//
// The legacy HYRCON bridge dialect is line oriented. Lines are LF or CRLF
// terminated and grouped into blocks ended by a line containing only `.`.
//
//   ```
//   > AUTH <password>
//   < AUTH OK
//   < .
//   > status
//   < OK
//   < uptime: 42
//   < .
//   ```
//
// The greeting block carries a banner line (`HYRCON READY`) followed by the
// advertised auth mode (`AUTH REQUIRED` or `AUTH OPTIONAL`). Command
// response blocks start with a status line (`OK`, `ERR` or `BYE`) and may
// end with a trailing `ERROR <message>` line carrying a structured error.
