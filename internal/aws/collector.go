// Package aws collects live device and interface state for EC2 hosted
// network appliances (virtual routers, firewalls) so they can be reconciled
// against the SSOT like any physical device.
package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/models"
)

// Common AWS errors that we want to handle specifically
var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrAccessDenied     = errors.New("access denied to AWS resources")
	ErrUnsupported      = errors.New("entity type not available from EC2")
)

// EC2DescribeInstancesAPI is the subset of the EC2 API the collector needs.
// It allows the EC2 client to be mocked in tests.
type EC2DescribeInstancesAPI interface {
	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)
}

// Collector maps devices to EC2 instances by their Name tag
type Collector struct {
	client EC2DescribeInstancesAPI
	logger *logger.Logger
}

// NewCollector loads the default AWS credential chain for region (and
// profile, when set) and returns a collector backed by the EC2 API
func NewCollector(ctx context.Context, region, profile string) (*Collector, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(so *retry.StandardOptions) {
				so.MaxAttempts = 5
			})
		}),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log := logger.WithFields(map[string]interface{}{
		"component": "aws-collector",
		"region":    cfg.Region,
	})
	log.Debug("Initialized AWS EC2 collector")

	return NewCollectorWithClient(ec2.NewFromConfig(cfg), log), nil
}

// NewCollectorWithClient wraps an existing EC2 API implementation
func NewCollectorWithClient(client EC2DescribeInstancesAPI, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.DefaultLogger
	}
	return &Collector{client: client, logger: log}
}

// Source identifies EC2 as the producer of live values
func (c *Collector) Source() models.DiffSource {
	return models.SourceEC2
}

// Collect returns the instance (device) or its network interfaces
// (interface) as records for normalize.Live
func (c *Collector) Collect(ctx context.Context, device string, et models.EntityType) (any, error) {
	if et != models.EntityDevice && et != models.EntityInterface {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, et)
	}

	instance, err := c.findInstance(ctx, device)
	if err != nil {
		return nil, err
	}

	if et == models.EntityDevice {
		return []any{map[string]any{
			"name":          device,
			"instance_id":   aws.ToString(instance.InstanceId),
			"instance_type": string(instance.InstanceType),
			"state":         instanceState(instance),
		}}, nil
	}
	return interfaceRecords(instance), nil
}

func (c *Collector) findInstance(ctx context.Context, device string) (types.Instance, error) {
	log := c.logger.WithFields(map[string]interface{}{"device": device})
	log.Debug("Describing instance")

	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{{
			Name:   aws.String("tag:Name"),
			Values: []string{device},
		}},
	}

	result, err := c.client.DescribeInstances(ctx, input)
	if err != nil {
		var apiErr interface {
			Error() string
			ErrorCode() string
		}
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "UnauthorizedOperation" {
			log.Error("Access denied when describing instance")
			return types.Instance{}, fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		log.Error("Failed to describe instance: %v", err)
		return types.Instance{}, fmt.Errorf("failed to describe instance: %w", err)
	}

	for _, res := range result.Reservations {
		for _, inst := range res.Instances {
			if instanceState(inst) == string(types.InstanceStateNameTerminated) {
				continue
			}
			return inst, nil
		}
	}
	log.Warn("No instance tagged with this device name")
	return types.Instance{}, fmt.Errorf("%w: no instance tagged Name=%s", ErrInstanceNotFound, device)
}

func instanceState(inst types.Instance) string {
	if inst.State == nil {
		return ""
	}
	return string(inst.State.Name)
}

// interfaceRecords names ENIs ethN after their attachment device index
func interfaceRecords(inst types.Instance) []any {
	nis := append([]types.InstanceNetworkInterface(nil), inst.NetworkInterfaces...)
	sort.SliceStable(nis, func(i, j int) bool {
		return deviceIndex(nis[i]) < deviceIndex(nis[j])
	})

	out := make([]any, 0, len(nis))
	for _, ni := range nis {
		idx := deviceIndex(ni)
		if idx < 0 {
			continue
		}
		out = append(out, map[string]any{
			"name":         fmt.Sprintf("eth%d", idx),
			"interface_id": aws.ToString(ni.NetworkInterfaceId),
			"description":  aws.ToString(ni.Description),
			"mac_address":  aws.ToString(ni.MacAddress),
			"status":       string(ni.Status),
		})
	}
	return out
}

func deviceIndex(ni types.InstanceNetworkInterface) int32 {
	if ni.Attachment == nil || ni.Attachment.DeviceIndex == nil {
		return -1
	}
	return *ni.Attachment.DeviceIndex
}
