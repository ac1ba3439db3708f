package graphql

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/motorplace/ugc-service/internal/domain"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

// argumentMap materializes a field's arguments into plain Go values,
// resolving variable references against the request's variables.
func argumentMap(field *ast.Field, variables map[string]any) map[string]any {
	args := make(map[string]any, len(field.Arguments))
	for _, arg := range field.Arguments {
		args[arg.Name] = astValue(arg.Value, variables)
	}
	return args
}

func astValue(v *ast.Value, variables map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.Variable:
		return variables[v.Raw]
	case ast.IntValue:
		n, err := strconv.Atoi(v.Raw)
		if err != nil {
			return v.Raw
		}
		return n
	case ast.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return v.Raw
		}
		return f
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw
	case ast.BooleanValue:
		return v.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.ListValue:
		list := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			list = append(list, astValue(child.Value, variables))
		}
		return list
	case ast.ObjectValue:
		obj := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			obj[child.Name] = astValue(child.Value, variables)
		}
		return obj
	}
	return nil
}

func uuidArg(args map[string]any, name string) (uuid.UUID, error) {
	raw, ok := args[name].(string)
	if !ok || raw == "" {
		return uuid.Nil, apperrors.Validation(fmt.Sprintf("argument %q must be a non-empty ID", name))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation(fmt.Sprintf("argument %q is not a valid UUID", name))
	}
	return id, nil
}

func optUUIDArg(args map[string]any, name string) (*uuid.UUID, error) {
	if args[name] == nil {
		return nil, nil
	}
	id, err := uuidArg(args, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// intArg accepts GraphQL Int literals and JSON numbers from variables.
func intArg(args map[string]any, name string) (*int, error) {
	switch raw := args[name].(type) {
	case nil:
		return nil, nil
	case int:
		return &raw, nil
	case float64:
		n := int(raw)
		return &n, nil
	default:
		return nil, apperrors.Validation(fmt.Sprintf("argument %q must be an Int", name))
	}
}

func stringArg(args map[string]any, name string) (*string, error) {
	switch raw := args[name].(type) {
	case nil:
		return nil, nil
	case string:
		return &raw, nil
	default:
		return nil, apperrors.Validation(fmt.Sprintf("argument %q must be a String", name))
	}
}

func boolArg(args map[string]any, name string) (*bool, error) {
	switch raw := args[name].(type) {
	case nil:
		return nil, nil
	case bool:
		return &raw, nil
	default:
		return nil, apperrors.Validation(fmt.Sprintf("argument %q must be a Boolean", name))
	}
}

func objectArg(args map[string]any, name string) (map[string]any, error) {
	switch raw := args[name].(type) {
	case nil:
		return nil, apperrors.Validation(fmt.Sprintf("argument %q is required", name))
	case map[string]any:
		return raw, nil
	default:
		return nil, apperrors.Validation(fmt.Sprintf("argument %q must be an input object", name))
	}
}

// filterFromArgs builds a reviews filter from the optional filter argument.
func filterFromArgs(args map[string]any) (domain.ReviewsFilter, error) {
	var filter domain.ReviewsFilter

	raw, ok := args["filter"].(map[string]any)
	if !ok {
		return filter, nil
	}

	var err error
	if filter.OfferID, err = optUUIDArg(raw, "offerId"); err != nil {
		return filter, err
	}
	if filter.AuthorID, err = optUUIDArg(raw, "authorId"); err != nil {
		return filter, err
	}
	if filter.MinRating, err = intArg(raw, "minRating"); err != nil {
		return filter, err
	}
	if filter.MaxRating, err = intArg(raw, "maxRating"); err != nil {
		return filter, err
	}
	if filter.ModeratedOnly, err = boolArg(raw, "moderatedOnly"); err != nil {
		return filter, err
	}

	if raw["moderationStatus"] != nil {
		s, ok := raw["moderationStatus"].(string)
		if !ok {
			return filter, apperrors.Validation("moderationStatus must be a String")
		}
		status, err := domain.ParseModerationStatus(s)
		if err != nil {
			return filter, apperrors.Validation(err.Error())
		}
		filter.ModerationStatus = &status
	}
	return filter, nil
}

func createInputFromArgs(args map[string]any) (domain.CreateReviewInput, error) {
	var input domain.CreateReviewInput

	raw, err := objectArg(args, "input")
	if err != nil {
		return input, err
	}

	offerID, err := uuidArg(raw, "offerId")
	if err != nil {
		return input, err
	}
	rating, err := intArg(raw, "rating")
	if err != nil {
		return input, err
	}
	if rating == nil {
		return input, apperrors.Validation("rating is required")
	}
	text, err := stringArg(raw, "text")
	if err != nil {
		return input, err
	}
	if text == nil {
		return input, apperrors.Validation("text is required")
	}

	input.OfferID = offerID
	input.Rating = *rating
	input.Text = *text
	return input, nil
}

func updateInputFromArgs(args map[string]any) (domain.UpdateReviewInput, error) {
	var input domain.UpdateReviewInput

	raw, err := objectArg(args, "input")
	if err != nil {
		return input, err
	}
	if input.Rating, err = intArg(raw, "rating"); err != nil {
		return input, err
	}
	if input.Text, err = stringArg(raw, "text"); err != nil {
		return input, err
	}
	return input, nil
}

func moderateInputFromArgs(args map[string]any) (uuid.UUID, domain.ModerationStatus, error) {
	raw, err := objectArg(args, "input")
	if err != nil {
		return uuid.Nil, "", err
	}

	reviewID, err := uuidArg(raw, "reviewId")
	if err != nil {
		return uuid.Nil, "", err
	}

	s, ok := raw["status"].(string)
	if !ok || s == "" {
		return uuid.Nil, "", apperrors.Validation("status is required")
	}
	status, err := domain.ParseModerationStatus(s)
	if err != nil {
		return uuid.Nil, "", apperrors.Validation(err.Error())
	}
	return reviewID, status, nil
}
