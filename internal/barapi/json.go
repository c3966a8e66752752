package barapi

import (
	"context"
	"encoding/json"
	"errors"

	"replaylistener/internal/services"
)

func (c *Client) getJSON(ctx context.Context, endpoint, stage string, dest any) error {
	resp, err := c.get(ctx, endpoint, stage)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return services.Wrap(decodeMarker(err), stage, "decode response", "", err)
	}
	return nil
}

func decodeMarker(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return services.ErrValidation
	}
	return services.MarkerForTransport(err)
}
