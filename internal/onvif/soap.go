package onvif

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxRequestBytes = 1 << 20

// decodeRequest reads a SOAP envelope and returns the action's local name
// together with the raw body for action-specific decoding.
func decodeRequest(r *http.Request) (action string, body []byte, err error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", errMalformedRequest, err)
	}

	var env requestEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %w", errMalformedRequest, err)
	}

	action, err = sniffAction(env.Body.Inner)
	if err != nil {
		return "", nil, err
	}
	return action, env.Body.Inner, nil
}

// sniffAction returns the local name of the first element in a SOAP body.
func sniffAction(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: no action element", errMalformedRequest)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// decodeAction unmarshals the first body element into an action request.
func decodeAction(body []byte, v any) error {
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errMalformedRequest, err)
	}
	return nil
}

// writeResponse marshals a response payload inside a SOAP envelope.
func writeResponse(w http.ResponseWriter, payload any) {
	env := envelope{
		NSEnv: nsEnvelope,
		NSTT:  nsSchema,
		NSPTZ: nsPTZ,
		NSDev: nsDevice,
		Body:  envelopeBody{Payload: payload},
	}

	w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	enc.Encode(env)
}

// writeFault maps an error to a SOAP fault response.
func writeFault(w http.ResponseWriter, err error) {
	fault, status := faultFor(err)

	env := envelope{
		NSEnv: nsEnvelope,
		NSErr: nsError,
		Body:  envelopeBody{Payload: fault},
	}

	w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	enc.Encode(env)
}

// parseTimeoutSeconds parses the xsd:duration subset ONVIF clients send
// (PT[nH][nM][nS]) and returns whole seconds, rounding fractions up so a
// short timeout never becomes no timeout.
func parseTimeoutSeconds(dur string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(dur))
	if s == "" {
		return 0, nil
	}

	t := strings.Index(s, "T")
	if !strings.HasPrefix(s, "P") || t < 0 {
		return 0, fmt.Errorf("%w: bad duration %q", errMalformedRequest, dur)
	}
	s = s[t+1:]

	total := 0.0
	for _, unit := range []struct {
		suffix  string
		seconds float64
	}{{"H", 3600}, {"M", 60}, {"S", 1}} {
		idx := strings.Index(s, unit.suffix)
		if idx < 0 {
			continue
		}
		n, err := strconv.ParseFloat(s[:idx], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad duration %q", errMalformedRequest, dur)
		}
		total += n * unit.seconds
		s = s[idx+1:]
	}
	if s != "" {
		return 0, fmt.Errorf("%w: bad duration %q", errMalformedRequest, dur)
	}

	secs := int(total)
	if float64(secs) < total {
		secs++
	}
	return secs, nil
}
