package clientproto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// ErrMessageTooLarge is returned by ReadMessage when the length prefix
// exceeds maxBytes. The message text deliberately contains the
// stable substring "too large" the response error is expected to carry.
type ErrMessageTooLarge struct {
	Length   uint32
	MaxBytes uint32
}

func (e *ErrMessageTooLarge) Error() string {
	return fmt.Sprintf("message length %d exceeds maximum of %d bytes: message too large", e.Length, e.MaxBytes)
}

// ErrMessageEmpty is returned by ReadMessage when the length prefix is 0.
var ErrMessageEmpty = fmt.Errorf("message length is zero")

// ReadMessage reads one length-prefixed frame from r, enforcing
// 1 <= length <= maxBytes. It does not parse the
// body; callers decode the JSON themselves (ReadRequest/ReadResponse do
// both in one step).
func ReadMessage(r io.Reader, maxBytes uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("reading length prefix: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > maxBytes {
		return nil, &ErrMessageTooLarge{Length: length, MaxBytes: maxBytes}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading message body: %w", err)
	}
	return body, nil
}

// WriteMessage writes body as one length-prefixed frame to w.
func WriteMessage(w io.Writer, body []byte) error {
	if len(body) > int(^uint32(0)) {
		return fmt.Errorf("message body of %d bytes exceeds u32 length prefix", len(body))
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	return nil
}

// ReadRequest reads one frame from r and decodes it as a Request.
// This package sets no nesting-depth limit of its own: decoding is
// bounded by the size bound enforced by ReadMessage and by
// encoding/json's built-in nesting limit, past which decoding fails.
func ReadRequest(r io.Reader, maxBytes uint32) (Request, error) {
	body, err := ReadMessage(r, maxBytes)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("decoding request body: %w", err)
	}
	return req, nil
}

// WriteResponse encodes resp as JSON and writes it as one frame to w.
func WriteResponse(w io.Writer, resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response body: %w", err)
	}
	return WriteMessage(w, body)
}

// ReadResponse reads one frame from r and decodes it as a Response.
// Used by the CLI client.
func ReadResponse(r io.Reader, maxBytes uint32) (Response, error) {
	body, err := ReadMessage(r, maxBytes)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, fmt.Errorf("decoding response body: %w", err)
	}
	return resp, nil
}

// WriteRequest encodes req as JSON and writes it as one frame to w.
// Used by the CLI client.
func WriteRequest(w io.Writer, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return WriteMessage(w, body)
}
