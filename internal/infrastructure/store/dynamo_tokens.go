package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/shop-backend/internal/permission"
)

// RoleIndexName is the GSI projecting tokens by role for staff fan-out.
const RoleIndexName = "role-index"

// DynamoTokenRegistry stores push device tokens in DynamoDB, keyed by user
// with a role GSI so a notification can target either one user or every
// user holding a role.
type DynamoTokenRegistry struct {
	client    *dynamodb.Client
	tableName string
}

// deviceToken is the DynamoDB item structure
type deviceToken struct {
	UserID       string `dynamodbav:"user_id"`
	Token        string `dynamodbav:"token"`
	Role         string `dynamodbav:"role"`
	RegisteredAt string `dynamodbav:"registered_at"`
}

func NewDynamoTokenRegistry(client *dynamodb.Client, tableName string) *DynamoTokenRegistry {
	return &DynamoTokenRegistry{client: client, tableName: tableName}
}

// Register stores a device token for a user. Re-registering the same token
// refreshes its timestamp.
func (tr *DynamoTokenRegistry) Register(ctx context.Context, userID string, role permission.Role, token string) error {
	item := deviceToken{
		UserID:       userID,
		Token:        token,
		Role:         string(role),
		RegisteredAt: time.Now().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = tr.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tr.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put token: %w", err)
	}
	return nil
}

// Unregister removes one device token for a user.
func (tr *DynamoTokenRegistry) Unregister(ctx context.Context, userID, token string) error {
	_, err := tr.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tr.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"token":   &types.AttributeValueMemberS{Value: token},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// TokensForUser returns every device token registered for one user.
func (tr *DynamoTokenRegistry) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	result, err := tr.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(tr.tableName),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	return unmarshalTokens(result.Items)
}

// TokensForRoles returns the device tokens of every user holding one of
// the given roles, via the role GSI.
func (tr *DynamoTokenRegistry) TokensForRoles(ctx context.Context, roles []permission.Role) ([]string, error) {
	var tokens []string
	for _, role := range roles {
		result, err := tr.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(tr.tableName),
			IndexName:              aws.String(RoleIndexName),
			KeyConditionExpression: aws.String("#r = :role"),
			ExpressionAttributeNames: map[string]string{
				"#r": "role",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":role": &types.AttributeValueMemberS{Value: string(role)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query tokens for role %s: %w", role, err)
		}
		roleTokens, err := unmarshalTokens(result.Items)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, roleTokens...)
	}
	return tokens, nil
}

func unmarshalTokens(items []map[string]types.AttributeValue) ([]string, error) {
	tokens := make([]string, 0, len(items))
	for _, item := range items {
		var dt deviceToken
		if err := attributevalue.UnmarshalMap(item, &dt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token: %w", err)
		}
		tokens = append(tokens, dt.Token)
	}
	return tokens, nil
}
