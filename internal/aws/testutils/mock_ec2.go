package testutils

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/mock"
)

// MockEC2API is a mock implementation of the EC2 API for testing
type MockEC2API struct {
	mock.Mock
}

// DescribeInstances is a mock implementation of the EC2 DescribeInstances API
func (m *MockEC2API) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeInstancesOutput), args.Error(1)
}

// ENI builds an attached network interface at the given device index
func ENI(index int32, id, mac, description string, status types.NetworkInterfaceStatus) types.InstanceNetworkInterface {
	return types.InstanceNetworkInterface{
		NetworkInterfaceId: aws.String(id),
		MacAddress:         aws.String(mac),
		Description:        aws.String(description),
		Status:             status,
		Attachment:         &types.InstanceNetworkInterfaceAttachment{DeviceIndex: aws.Int32(index)},
	}
}

// InstanceOutput wraps a single running instance in a DescribeInstances response
func InstanceOutput(name, id string, instanceType types.InstanceType, enis ...types.InstanceNetworkInterface) *ec2.DescribeInstancesOutput {
	return &ec2.DescribeInstancesOutput{
		Reservations: []types.Reservation{{
			Instances: []types.Instance{{
				InstanceId:        aws.String(id),
				InstanceType:      instanceType,
				State:             &types.InstanceState{Name: types.InstanceStateNameRunning},
				NetworkInterfaces: enis,
				Tags:              []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
			}},
		}},
	}
}
