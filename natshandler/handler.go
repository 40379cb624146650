package natshandler

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"analystagent/internal"
	"analystagent/model"
	"analystagent/sandbox"
)

const maxCodeLen = 10000

// HandleSandboxRequest serves raw code execution requests arriving over
// NATS. The reply carries the normalized sandbox result; like the runner
// itself, the handler never surfaces an exception to the requester.
func HandleSandboxRequest(msg *nats.Msg, nc *nats.Conn, runner *sandbox.Runner, workspaceDir string) {
	var req model.SandboxRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("Failed to parse sandbox request: %v", err)
		return
	}

	if err := internal.GuardCode(req.Code, maxCodeLen); err != nil {
		reply(nc, msg, model.SandboxResponse{
			Stderr:   err.Error(),
			ExitCode: sandbox.RunnerFailure,
		})
		return
	}

	result := runner.Execute(context.Background(), sandbox.ExecutionRequest{
		Code:          req.Code,
		WorkspacePath: workspaceDir,
	})

	reply(nc, msg, model.SandboxResponse{
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
		TimedOut: result.TimedOut,
	})
}

func reply(nc *nats.Conn, msg *nats.Msg, res model.SandboxResponse) {
	if msg.Reply == "" {
		return
	}
	resData, err := json.Marshal(res)
	if err != nil {
		log.Printf("Failed to marshal sandbox response: %v", err)
		return
	}
	nc.Publish(msg.Reply, resData)
}
