package remote

import "github.com/forgecore/enginecore/wire"

// ConsoleExecFunc runs a console command string on the engine side and
// returns its textual output, per spec.md §6 "CONX: execute console
// command".
type ConsoleExecFunc func(command string) (output string, ok bool, errText string)

// RegisterConsole wires a ConsoleExecFunc in as the CONX server handler.
// CONX carries the command string as its payload and the output as its
// reply payload.
func RegisterConsole(r *Registry, fn ConsoleExecFunc) {
	r.Register(Descriptor{
		FourCC: wire.CONX,
		ServerFn: func(_ interface{}, payload []byte) ([]byte, bool, bool, string) {
			output, ok, errText := fn(string(payload))
			return []byte(output), false, ok, errText
		},
	})
}

// RegisterConsoleClient wires a reply handler for CONX responses issued by
// ExecuteCommand(wire.CONX, ...).
func RegisterConsoleClient(r *Registry, fn func(output string, isErr bool, errText string)) {
	clientFn := func(_ interface{}, isErr bool, payload []byte, errText string) {
		fn(string(payload), isErr, errText)
	}
	if r.replaceClientFn(wire.CONX, clientFn) {
		return
	}
	r.Register(Descriptor{FourCC: wire.CONX, ClientFn: clientFn})
}
