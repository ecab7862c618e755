package grpc

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kodflow/supervizio/internal/domain/command"
)

// commandFromStruct decodes a dispatch request carried as a structpb.Struct
// into a domain command.Command. There is no generated message type: the
// wire contract is the set of fields this function reads.
func commandFromStruct(s *structpb.Struct) command.Command {
	fields := s.GetFields()

	cmd := command.Command{
		ID:        stringField(fields, "id"),
		Kind:      command.Kind(stringField(fields, "kind")),
		ProcessID: stringField(fields, "processId"),
		Timestamp: time.Now().UTC(),
	}

	if params, ok := fields["params"]; ok {
		cmd.Params = make(map[string]string, len(params.GetStructValue().GetFields()))
		for k, v := range params.GetStructValue().GetFields() {
			cmd.Params[k] = v.GetStringValue()
		}
	}

	return cmd
}

// responseToStruct encodes a domain command.Response as a structpb.Struct
// for the wire.
func responseToStruct(resp command.Response) (*structpb.Struct, error) {
	data, err := structpb.NewStruct(resp.Data)
	if err != nil {
		return nil, err
	}

	return structpb.NewStruct(map[string]any{
		"commandId": resp.CommandID,
		"ok":        resp.OK,
		"message":   resp.Message,
		"data":      data.AsMap(),
		"timestamp": resp.Timestamp.Format(time.RFC3339),
	})
}

func stringField(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// commandToStruct encodes a domain command.Command as a structpb.Struct,
// the inverse of commandFromStruct; used by Client.Dispatch.
func commandToStruct(cmd command.Command) (*structpb.Struct, error) {
	params := make(map[string]any, len(cmd.Params))
	for k, v := range cmd.Params {
		params[k] = v
	}

	return structpb.NewStruct(map[string]any{
		"id":        cmd.ID,
		"kind":      string(cmd.Kind),
		"processId": cmd.ProcessID,
		"params":    params,
	})
}

// structToResponse decodes a Dispatch reply into a domain command.Response,
// the inverse of responseToStruct; used by Client.Dispatch.
func structToResponse(s *structpb.Struct) command.Response {
	fields := s.GetFields()

	ts, _ := time.Parse(time.RFC3339, stringField(fields, "timestamp"))

	var data map[string]any
	if d, ok := fields["data"]; ok {
		data = d.GetStructValue().AsMap()
	}

	return command.Response{
		CommandID: stringField(fields, "commandId"),
		OK:        fields["ok"].GetBoolValue(),
		Message:   stringField(fields, "message"),
		Data:      data,
		Timestamp: ts,
	}
}
